// Package merkle builds and verifies hash trees over byte data.
//
// Data is split into NodeSize nodes. The digests of a level's nodes form the
// next level, which is again split into nodes, until a level fits in a single
// node; the digest of that node is the root. Data of at most NodeSize bytes
// therefore needs no tree, and its root is the digest of the data itself.
//
// The levels below the root are stored in a caller supplied buffer, leaf
// level first, each zero padded to a multiple of NodeSize (see
// GetTreeLength). Any node aligned range of the data can then be verified
// against the root by re-hashing only the nodes on its path (see Verify and
// VerifyNodes).
package merkle
