// Package eyre implements transport.Transport over a ship's Eyre HTTP API.
//
// A Client logs in with the ship's +code, opens one channel, and multiplexes
// every subscription over that channel's single Server-Sent Events stream.
// A reader goroutine demultiplexes events by subscription id into per
// subscription FIFO queues, so Poll never touches the network.
//
// Wire summary:
//
//	POST /~/login                 password=<code>, sets urbauth-~<ship>
//	PUT  /~/channel/<uid>         JSON array of actions (subscribe, poke, ack, delete)
//	GET  /~/channel/<uid>         text/event-stream of {"id", "response", "json"}
//	POST /spider/<desk>/<in>/<thread>/<out>.json   thread call (chat join)
//
// When the event stream ends the reader reopens it with backoff, resuming
// from the last event id. If the ship refuses the channel, the client logs
// in again and resubscribes every stream; event ids restart, so frames
// from the old channel are never acked on the new one. A subscription that
// receives a quit is resubscribed in place. Poll reports
// transport.ErrClosed only after Close.
package eyre
