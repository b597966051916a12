// Package api implements the HTTP client for AxeOS-style miner APIs.
//
// Bitaxe and NerdQAxe devices expose near-identical REST APIs; this package
// decodes both response shapes into one unified model. Device family
// detection is a documented priority order over the raw /api/system/info
// payload:
//
//  1. A "deviceModel" field (NerdQAxe firmware) is checked first.
//  2. Otherwise the Bitaxe "ASICModel" field maps the board variant
//     (BM1366 = Ultra, BM1368 = Max, BM1370 = Gamma).
//  3. Otherwise the hostname is matched against the known vocabulary.
//
// All network operations take a context and are timeout-bound; errors are
// returned as *DeviceError values carrying a category and a retryable flag.
package api
