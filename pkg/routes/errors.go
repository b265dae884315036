package routes

import "errors"

var ErrInvalidRoutes = errors.New("routes: invalid configuration")
