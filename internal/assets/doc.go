// Package assets discovers model files under the asset root.
//
// A Walker fans directory entries out to a small worker pool that keeps
// files with a model extension (.safetensors, .ckpt, .pt, .pth, .bin) and
// skips hidden entries. Catalog wraps the walker, deduplicates names and
// serves as the batch package's asset resolver.
package assets
