// Package postline provides a small content API core: listing posts through
// a dynamically-built retrieval pipeline, and creating posts by concurrently
// uploading media attachments and resolving tag names to identifiers.
//
// It exposes a single Service interface over two pluggable collaborators: a
// Repository for posts and tags (memory, Postgres under subpackages of repo)
// and a BlobStore for media (memory, filesystem, S3 under subpackages of
// storage).
//
// Query Pipeline
//
// A listing request is validated against a fixed parameter allow-list and
// translated into an ordered sequence of tagged stages (keyword filter, tag
// join, tag-name filter, sort, paginate, project). Filter stages always run
// before pagination, and the envelope's total element count is computed over
// the filtered set independently of the returned page.
package postline
