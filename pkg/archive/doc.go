/*
Package archive resolves paths to out-of-band artifacts: images, calibration
results and recorded logs referenced by event payloads.

Archive has two implementations:

  - HTTPArchive resolves paths against the vehicle's blob store over HTTP.
  - TarArchive resolves paths inside an in-memory tarball, for example a
    dataset dropped onto the console for offline replay.

TarArchive is a minimal reader over the fixed tar layout: 512-byte header
blocks, a NUL-terminated name at offset 0, an octal size at offset 124, the
type flag at offset 156 and data padded to the next block. Entries are
found by scanning headers in order. On top of that baseline it honours the
ustar prefix field, GNU long-name records and PAX path records, so names
longer than 100 bytes survive. Tarballs compressed with gzip, zstd or lz4
are detected by magic number and inflated on open.

Archivers usually wrap everything in one top-level directory;
NormalizeTarPath strips it, and TarArchive.GetBlob accepts either form.

Fetch failures are logged, counted in console_resource_fetches_total and
returned. Nothing retries: a caller that needs the artifact again asks again.

CachedArchive puts a BlobCache (storage.BoltStore in the console) in front
of any Archive. LoadResource decodes an artifact with the event registry
given a "<format>; type=<TypeID>" content type.
*/
package archive
