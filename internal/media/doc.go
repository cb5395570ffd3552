// Package media turns an asset's remote media into a preview JPEG.
//
// The Processor walks the media entries of an asset's metadata in order and
// stops at the first one it can turn into a still:
//   - Images are downloaded and decoded with libvips when it has been
//     initialised (InitVips), otherwise with imaging (auto-orientation,
//     WebP via golang.org/x/image). Formats neither can read fall back to ffmpeg.
//   - Videos have a single frame extracted with ffmpeg.
//
// The still is fit into the configured maximum size and JPEG-encoded, then
// handed to the preview store.
package media
