// Package auth issues and validates the bearer tokens that guard the sensor API.
//
// Tokens are HS256 JWTs signed with the site secret. Each carries a role:
//   - viewer: may read sensor summaries, history and the live stream
//   - operator: may additionally send sensor commands such as reset_stats
//
// There is no user store. Tokens are minted offline with
// `edgetrack --issue-token <subject>` and validated by signature and expiry only.
package auth
