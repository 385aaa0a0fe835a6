package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryStorage struct {
	cld          *cloudinary.Cloudinary
	uploadFolder string
}

// NewCloudinaryStorage creates a Cloudinary-backed ImageStorage. When cloudName
// is empty the SDK falls back to CLOUDINARY_URL.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, uploadFolder string) (ImageStorage, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cloudName != "" {
		cld, err = cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	} else {
		cld, err = cloudinary.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	cld.Config.URL.Secure = true

	return &cloudinaryStorage{cld: cld, uploadFolder: uploadFolder}, nil
}

func (s *cloudinaryStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if s == nil || s.cld == nil {
		return "", fmt.Errorf("cloudinary storage is not initialized")
	}

	if s.uploadFolder != "" {
		folder = strings.Trim(s.uploadFolder+"/"+folder, "/")
	}

	base := strings.TrimSuffix(sanitizeFileName(fileName), filepath.Ext(fileName))
	publicID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)

	params := uploader.UploadParams{
		Folder:         folder,
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(true),
		PublicID:       publicID,
		Overwrite:      api.Bool(false),
	}

	if isImageExt(fileName) {
		params.Format = "webp"
		params.Transformation = "q_auto"
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload image to cloudinary: %w", err)
	}

	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	return resp.SecureURL, nil
}

func (s *cloudinaryStorage) DeleteImage(ctx context.Context, fileURL string) error {
	if s == nil || s.cld == nil {
		return fmt.Errorf("cloudinary storage is not initialized")
	}

	publicID := extractCloudinaryPublicID(fileURL)
	if publicID == "" {
		return fmt.Errorf("could not extract public ID from URL: %s", fileURL)
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   publicID,
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image from cloudinary: %w", err)
	}

	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy api returned result: %s", resp.Result)
	}

	return nil
}

// extractCloudinaryPublicID turns
// https://res.cloudinary.com/demo/image/upload/v123456789/folder/sample.jpg into folder/sample.
func extractCloudinaryPublicID(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(u.Path, "/")
	uploadIndex := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIndex = i
			break
		}
	}

	if uploadIndex == -1 || uploadIndex+1 >= len(parts) {
		return ""
	}

	relevant := parts[uploadIndex+1:]
	if len(relevant) > 1 && isVersionSegment(relevant[0]) {
		relevant = relevant[1:]
	}

	withExt := strings.Join(relevant, "/")
	return strings.TrimSuffix(withExt, filepath.Ext(withExt))
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
