// Copyright 2025 ClipSpark Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// UploadPrefix is the object prefix signed URLs are issued under. The
// sweeper only ever deletes objects below this prefix.
const UploadPrefix = "uploads/"

// GCSTarget issues signed PUT URLs against an upload bucket so clients can
// stream their video straight to Cloud Storage. Signing goes through the
// IAM Credentials API, so no private key ever touches the server.
type GCSTarget struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	Bucket        string
	SignerEmail   string
	TTL           time.Duration
}

// SignedPutURL returns a V4 signed URL valid for a single PUT of the named
// object.
func (t *GCSTarget) SignedPutURL(ctx context.Context, objectName string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "PUT",
		Expires:        time.Now().Add(t.TTL),
		GoogleAccessID: t.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", t.SignerEmail),
				Payload: b,
			}
			resp, err := t.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := t.StorageClient.Bucket(t.Bucket).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", t.Bucket, objectName, err)
	}
	return u, nil
}

// SweepStale deletes uploaded objects older than maxAge. Source videos are
// only needed while their job is in flight, so anything left behind after a
// job settles or times out is garbage. Returns the number of objects removed.
func (t *GCSTarget) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	bucket := t.StorageClient.Bucket(t.Bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: UploadPrefix})

	removed := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("Bucket(%q).Objects: %w", t.Bucket, err)
		}
		if attrs.Created.After(cutoff) {
			continue
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return removed, fmt.Errorf("delete %q: %w", attrs.Name, err)
		}
		removed++
	}
	return removed, nil
}
