package services

import "errors"

var (
	ErrLocationNotFound   = errors.New("локация не найдена")
	ErrVisitNotFound      = errors.New("визит не найден")
	ErrVisitIDRequired    = errors.New("visit_id обязателен")
	ErrInvalidDays        = errors.New("количество дней должно быть неотрицательным целым числом")
	ErrNotRegistered      = errors.New("пользователь не зарегистрирован")
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrUserExists         = errors.New("пользователь с таким именем уже существует")
	ErrInvalidCredentials = errors.New("невозможно войти с предоставленными учетными данными")
	ErrInvalidToken       = errors.New("недействительный или просроченный токен")
	ErrImageTooLarge      = errors.New("размер изображения превышает допустимый")
	ErrUnsupportedImage   = errors.New("неподдерживаемый формат изображения")
	ErrUnsupportedFormat  = errors.New("неподдерживаемый формат отчета")
	ErrCategoryNotFound   = errors.New("категория не найдена")
	ErrItemNotFound       = errors.New("товар не найден")
	ErrNoImages           = errors.New("в директории нет изображений")
)
