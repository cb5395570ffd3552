// Package storage writes preview images and answers whether an asset already
// has one.
//
// Real previews are stored next to the asset as <name>.preview.jpeg.
// Placeholders, written for assets whose remote entry has no usable media,
// live under <cache>/placeholders. Every write goes through a temp file and
// rename, and is recorded in the database with a blake2b content digest.
package storage
