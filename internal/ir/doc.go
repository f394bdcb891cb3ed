// Package ir provides the value model shared by conditions, the compiler and the store.
//
// This package contains leaf types only. Every other internal package may
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Values are a sealed set: String, Int, Float, Bool (scalars) and List
//   - Lists only appear as IN/NIN sets, never as comparison operands
//   - Canonical JSON is the only encoding used for equality and checksums
package ir
