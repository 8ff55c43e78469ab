package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"os"
	"path"
	"path/filepath"
	"strings"

	"lcnetwork/internal/config"
	"lcnetwork/internal/models"
	"lcnetwork/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
	"golang.org/x/sync/errgroup"
)

const (
	MaxImageWidth  = 1920
	MaxImageHeight = 1080
	JPEGQuality    = 85
	WebPQuality    = 80
)

// Upload folders under the upload root.
const (
	FolderPostImages    = "posts/images"
	FolderPostVideos    = "posts/videos"
	FolderCommentImages = "comments/images"
	FolderCommentVideos = "comments/videos"
	FolderAvatars       = "avatars"
)

var (
	imageExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true}
	videoExtensions = map[string]bool{"mp4": true, "avi": true, "mov": true, "wmv": true, "flv": true, "webm": true}
)

type UploadInput struct {
	Folder    string
	MediaType models.MediaType
	Filename  string
	Content   []byte
}

// StoredMedia describes a file written under the upload root. URLs are
// relative to the server origin.
type StoredMedia struct {
	URL       string           `json:"url"`
	WebPURL   string           `json:"webp_url,omitempty"`
	MediaType models.MediaType `json:"type"`
	Width     *int             `json:"width,omitempty"`
	Height    *int             `json:"height,omitempty"`
	FileSize  int64            `json:"file_size"`
}

// MediaService stores uploads on local disk. Images are bounded to
// 1920x1080 and saved as JPEG with a WebP rendition; videos are kept as sent.
type MediaService struct {
	uploadDir string
	maxBytes  int64
}

func NewMediaService(cfg *config.Config) *MediaService {
	maxMB := cfg.MediaMaxUploadSizeMB
	if maxMB <= 0 {
		maxMB = 100
	}
	dir := cfg.UploadDir
	if dir == "" {
		dir = "./uploads"
	}
	return &MediaService{uploadDir: dir, maxBytes: int64(maxMB) * 1024 * 1024}
}

// UploadDir is the root served under /uploads.
func (s *MediaService) UploadDir() string {
	return s.uploadDir
}

func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*StoredMedia, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file provided")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}
	if in.MediaType == "" {
		in.MediaType = models.MediaTypeImage
	}
	if !in.MediaType.Valid() {
		return nil, models.NewValidationError("Invalid media type")
	}
	ext := fileExtension(in.Filename)
	if !allowedExtension(ext, in.MediaType) {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid file type for %s", in.MediaType))
	}

	var (
		stored *StoredMedia
		err    error
	)
	if in.MediaType == models.MediaTypeImage {
		stored, err = s.storeImage(ctx, in.Folder, in.Content)
	} else {
		stored, err = s.storeVideo(in.Folder, ext, in.Content)
	}
	if err != nil {
		return nil, err
	}
	observability.MediaProcessed.WithLabelValues(string(in.MediaType)).Inc()
	return stored, nil
}

func (s *MediaService) storeImage(ctx context.Context, folder string, content []byte) (*StoredMedia, error) {
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	bounded := flatten(resizeToFit(decoded, MaxImageWidth, MaxImageHeight))

	var jpegBytes, webpBytes []byte
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jpegBytes, err = encodeJPEG(bounded, JPEGQuality)
		return err
	})
	g.Go(func() error {
		var err error
		webpBytes, err = encodeWebP(bounded, WebPQuality)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, models.NewInternalError(err)
	}

	name := uuid.New().String()
	jpgRel := path.Join(folder, name+".jpg")
	webpRel := path.Join(folder, name+".webp")
	written, err := s.writeAll(map[string][]byte{jpgRel: jpegBytes, webpRel: webpBytes})
	if err != nil {
		cleanupFiles(written)
		return nil, models.NewInternalError(err)
	}

	b := bounded.Bounds()
	w, h := b.Dx(), b.Dy()
	return &StoredMedia{
		URL:       "/uploads/" + jpgRel,
		WebPURL:   "/uploads/" + webpRel,
		MediaType: models.MediaTypeImage,
		Width:     &w,
		Height:    &h,
		FileSize:  int64(len(jpegBytes)),
	}, nil
}

func (s *MediaService) storeVideo(folder, ext string, content []byte) (*StoredMedia, error) {
	rel := path.Join(folder, uuid.New().String()+"."+ext)
	if err := writeBytesToFile(filepath.Join(s.uploadDir, filepath.FromSlash(rel)), content); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &StoredMedia{
		URL:       "/uploads/" + rel,
		MediaType: models.MediaTypeVideo,
		FileSize:  int64(len(content)),
	}, nil
}

func (s *MediaService) writeAll(files map[string][]byte) ([]string, error) {
	var written []string
	for rel, data := range files {
		abs := filepath.Join(s.uploadDir, filepath.FromSlash(rel))
		if err := writeBytesToFile(abs, data); err != nil {
			return written, err
		}
		written = append(written, abs)
	}
	return written, nil
}

func fileExtension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func allowedExtension(ext string, mediaType models.MediaType) bool {
	if mediaType == models.MediaTypeVideo {
		return videoExtensions[ext]
	}
	return imageExtensions[ext]
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// flatten composites transparent pixels onto white; JPEG has no alpha.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
