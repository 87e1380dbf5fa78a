// Package hub glues the MQTT transport to the inventory and scheduler.
//
// South side, it routes device traffic: node hellos on /nodes/<nid>
// (registration plus a blocking module-config exchange), module
// readings on /data/<nid>/<mal> (box update and actor dispatch), and
// session answer correlation, including the quote repair the node
// firmware's compact payloads need. Couriers publish signals and
// configs southbound and block on the node's session for the answer.
//
// North side, it serves the operator management API on /manager:
// structure and data exports, timetable inspection, pings, signals, and
// module/actor management. Answers go to /manager/<sid> so concurrent
// frontends do not read each other's responses.
//
// Message processing runs off the bus goroutine because south-bound
// commands block on node sessions whose answers arrive over the same
// bus connection.
package hub
