package models

import "errors"

var (
	// ErrLocationProtected возвращается при любой попытке удалить локацию
	ErrLocationProtected = errors.New("локацию нельзя удалить: на нее ссылаются сканирования")
	// ErrScanImmutable возвращается при попытке изменить сканирование или клик
	ErrScanImmutable = errors.New("записи сканирований и кликов неизменяемы")
)
