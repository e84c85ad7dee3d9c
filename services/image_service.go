package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ImageProfile - ограничения пересжатия для типа изображения
type ImageProfile struct {
	Dir     string
	MaxSize int
	Quality int
}

var (
	CategoryImageProfile = ImageProfile{Dir: "categories", MaxSize: 800, Quality: 70}
	ItemImageProfile     = ImageProfile{Dir: "furniture", MaxSize: 1200, Quality: 75}
	GalleryImageProfile  = ImageProfile{Dir: "furniture/gallery", MaxSize: 1200, Quality: 75}
)

// ImageService сохраняет загруженные изображения каталога, уменьшая и пересжимая их в JPEG
type ImageService struct {
	root      string
	maxUpload int64
}

// NewImageService создает новый экземпляр ImageService
func NewImageService(mediaRoot string, maxUpload int64) *ImageService {
	return &ImageService{root: mediaRoot, maxUpload: maxUpload}
}

// Process читает изображение, вписывает его в MaxSize x MaxSize,
// заливает прозрачность белым и кодирует в JPEG
func (s *ImageService) Process(r io.Reader, profile ImageProfile) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения изображения: %w", err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, ErrImageTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = imaging.Fit(img, profile.MaxSize, profile.MaxSize, imaging.Lanczos)

	// JPEG не поддерживает альфа-канал
	bounds := img.Bounds()
	flat := imaging.Overlay(imaging.New(bounds.Dx(), bounds.Dy(), color.White), img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(profile.Quality)); err != nil {
		return nil, fmt.Errorf("ошибка кодирования JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Save обрабатывает изображение и сохраняет его в MEDIA_ROOT.
// Возвращает путь относительно MEDIA_ROOT.
func (s *ImageService) Save(r io.Reader, profile ImageProfile) (string, error) {
	data, err := s.Process(r, profile)
	if err != nil {
		return "", err
	}

	rel := filepath.ToSlash(filepath.Join(profile.Dir, uuid.NewString()+".jpg"))
	if err := s.write(rel, data); err != nil {
		return "", err
	}
	return rel, nil
}

// Import пересжимает локальный файл вне MEDIA_ROOT и сохраняет его как новое изображение
func (s *ImageService) Import(path string, profile ImageProfile) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.unlimited().Save(f, profile)
}

// Recompress пересжимает уже сохраненное изображение. Файлы с другим расширением
// сохраняются рядом как .jpg, исходник удаляется. Возвращает новый относительный путь.
func (s *ImageService) Recompress(rel string, profile ImageProfile) (string, error) {
	f, err := os.Open(s.Path(rel))
	if err != nil {
		return "", err
	}
	// Для уже сохраненных файлов лимит размера загрузки не применяется
	data, err := s.unlimited().Process(f, profile)
	f.Close()
	if err != nil {
		return "", err
	}

	target := rel
	if ext := filepath.Ext(rel); !strings.EqualFold(ext, ".jpg") && !strings.EqualFold(ext, ".jpeg") {
		target = strings.TrimSuffix(rel, ext) + ".jpg"
	}
	if err := s.write(target, data); err != nil {
		return "", err
	}
	if target != rel {
		if err := os.Remove(s.Path(rel)); err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}
	return target, nil
}

func (s *ImageService) unlimited() *ImageService {
	return &ImageService{root: s.root, maxUpload: 1 << 40}
}

// Path возвращает абсолютный путь файла внутри MEDIA_ROOT
func (s *ImageService) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *ImageService) write(rel string, data []byte) error {
	full := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("ошибка создания директории: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла: %w", err)
	}
	return nil
}
