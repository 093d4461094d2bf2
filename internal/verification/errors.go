package verification

import "errors"

var (
	// неверная роль или пользователь не владелец
	ErrForbidden = errors.New("forbidden")
	// переход недопустим из текущего статуса, включая проигранную гонку версий.
	ErrInvalidState = errors.New("invalid state")
	// пост, комментарий или пользователь не существует
	ErrNotFound = errors.New("not found")
	ErrInvalidCommand = errors.New("invalid command")
)

// resultOf возвращает метку результата перехода для метрик.
func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCommand):
		return "invalid_command"
	default:
		return "error"
	}
}
