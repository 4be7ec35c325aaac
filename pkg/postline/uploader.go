package postline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// uploadAttachments uploads a batch of attachments concurrently, one
// goroutine per item, and waits for every upload to finish. The returned
// URI slice preserves input order. The batch is all-or-nothing: if any
// upload fails, the first failure (lowest index) is returned as an
// UploadError and no URI list is produced. Siblings already in flight run
// to completion; objects they stored are never referenced by a persisted
// post and are left to operational cleanup.
func (s *service) uploadAttachments(ctx context.Context, attachments []Attachment) ([]string, error) {
	uris := make([]string, len(attachments))
	errs := make([]error, len(attachments))

	var wg sync.WaitGroup
	for i, att := range attachments {
		wg.Add(1)
		go func(i int, att Attachment) {
			defer wg.Done()

			params := UploadParams{
				ObjectKey: s.keys.GenerateKey(uuid.New(), att.FileName),
				FileName:  att.FileName,
				MimeType:  att.ContentType,
			}

			uri, err := s.blobStore.Upload(ctx, params, att.Data)
			if err != nil {
				errs[i] = err
				return
			}
			uris[i] = uri
		}(i, att)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &UploadError{
				Index:    i,
				FileName: attachments[i].FileName,
				Err:      err,
			}
		}
	}

	return uris, nil
}
