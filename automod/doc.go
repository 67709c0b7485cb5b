// Moderation safety core for chat communities: spam detection, batched moderation actions, and fuzzy name lookup.
//
// This package (`github.com/nutsandbolts/modcore/automod`) holds no code itself. The pieces live in sub-packages:
//
//   - `spam` keeps two fixed windows per channel (repeated content, and overall volume), on top of `ratelimit` buckets and `countstore` counters
//   - `dispatch` runs one action (kick, ban, ...) against a list of targets, checking the member hierarchy for each and classifying every outcome
//   - `similarity` and `fuzzy` resolve free-text names against a keyed collection, with suggestions when there is no exact hit; `tags` is built on them
//   - `engine` owns all of the above for a process, and runs incoming messages through deny-lists (`blockstore`) and spam detection
//
// Platform adapters (eg, `platform/discord`) translate between a chat API and these packages. See `cmd/modcore` for a CLI.
package automod
