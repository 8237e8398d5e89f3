package web

import (
	"embed"
)

// staticFiles holds the operator page served at / and under /static/.
//
//go:embed static/*
var staticFiles embed.FS
