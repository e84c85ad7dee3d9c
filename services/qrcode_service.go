package services

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize - сторона PNG изображения QR-кода в пикселях
const DefaultQRSize = 512

// QRCodeService генерирует QR-коды со ссылкой на визит локации
type QRCodeService struct {
	siteURL string
	size    int
}

// NewQRCodeService создает новый экземпляр QRCodeService.
// Пустой siteURL означает, что базовый адрес передается при каждом вызове.
func NewQRCodeService(siteURL string) *QRCodeService {
	return &QRCodeService{siteURL: strings.TrimRight(siteURL, "/"), size: DefaultQRSize}
}

// VisitURL возвращает ссылку, которую кодирует QR-код локации
func (s *QRCodeService) VisitURL(baseURL string, locationID uint) string {
	if s.siteURL != "" {
		baseURL = s.siteURL
	}
	return fmt.Sprintf("%s/visit/%d/", strings.TrimRight(baseURL, "/"), locationID)
}

// PNG возвращает QR-код локации в формате PNG
func (s *QRCodeService) PNG(baseURL string, locationID uint) ([]byte, error) {
	png, err := qrcode.Encode(s.VisitURL(baseURL, locationID), qrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации QR-кода: %w", err)
	}
	return png, nil
}
