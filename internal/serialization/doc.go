// Package serialization saves and loads tensors in the .symt file format.
//
//	Format Structure (v2):
//	  [64 bytes: fixed header]
//	    magic "SYMT", version, flags, header size, data size, SHA-256 of data
//	  [Header: JSON metadata (bonds, labels, rowrank, block table)]
//	  [Block data: little-endian float64, 64-byte aligned]
//
// Version 1 files hold the legacy sector-matrix layout: one dense matrix per
// row-charge sector instead of one array per block. They carry no checksum
// and are converted to block tensors on load. Nothing writes version 1.
//
// Example usage:
//
//	if err := serialization.SaveFile("psi.symt", psi, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	psi, header, err := serialization.LoadFile("psi.symt", serialization.DefaultReaderOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
package serialization
