// Package events provides types and interfaces for publishing palace activity.
//
// Services emit events after a change has been persisted, without knowing
// which handlers will process them. Handlers can log activity, feed metrics or
// notify other components.
//
// The primary components are:
// - Event: A record of something that happened to the palace
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
