// Package entities defines the GORM models of the console database.
//
// # Hardware
//
//   - Type: signal or equipment category (line, mic, instrument, ...)
//   - Device: a piece of equipment that can be connected to an input
//   - Frequency: a sample rate in kHz
//   - AudioInterface: a mixing interface with its current sample rate
//
// # Routing
//
//   - Source: a named signal source
//   - Channel: a strip on an interface (volume, mute, solo, link)
//   - Input: a physical input routed to a channel
//
// # Sessions
//
//   - User: administrator or operator account
//   - Configuration: a saved snapshot of one interface, with one
//     ChannelSetting per channel and one InputConnection per routed input
//
// Every model embeds Model and satisfies Record.
package entities
