// Package discovery finds miners on the local network.
//
// Discovery combines three sources, merged by address with first
// occurrence winning in stage order:
//
//  1. mDNS browsing of the known service types, with plausibility
//     filtering and probe confirmation (MdnsBrowser).
//  2. A quick re-probe of previously cached addresses with a short fixed
//     timeout.
//  3. A full bounded-concurrency scan of the target range (Scanner).
//
// The stage order is a contract: an mDNS confirmation beats a quick-probe
// hit, which beats a fresh scan result, because the cheaper confirmations
// carry better identity information.
//
// Every stage is best-effort. A failing stage logs and the cycle
// continues; cache persistence failures never fail discovery.
package discovery
