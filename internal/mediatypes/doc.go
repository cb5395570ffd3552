// Package mediatypes classifies files and remote media by extension and MIME
// type. It has no dependencies outside the standard library so that both the
// batch core and the collaborators can import it.
//
// # File Types
//
//	mediatypes.FileTypeImage // stills a preview can be scaled from
//	mediatypes.FileTypeVideo // clips that need a frame extracted first
//	mediatypes.FileTypeModel // asset files (.safetensors, .ckpt, ...)
//	mediatypes.FileTypeOther
//
// # Detection
//
// Local files are classified by extension:
//
//	ext := strings.ToLower(filepath.Ext(filename))
//	if mediatypes.IsModelFile(ext) { ... }
//
// Remote media entries usually carry a declared type; when they don't,
// FromURL and FromContentType give a best guess:
//
//	mediatypes.FromURL("https://cdn.example/abc/clip.mp4?w=450") // FileTypeVideo
//	mediatypes.FromContentType("image/webp")                     // FileTypeImage
package mediatypes
