// Package responder provides the bundled Responder implementations.
//
//   - chart: answers "c <pair> <timeframe>" with a TradingView chart link
//   - echo: repeats every message back, for smoke tests
//   - none: never replies
//
// New resolves a responder by the name used in ship_config.yaml.
package responder
