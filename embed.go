package pubfront

import "embed"

// EmbeddedAssets contains static assets shipped with the binary: style.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
