// Package main runs the relink URL alias service.
//
//	@title			relink URL Shortener API
//	@version		1.0
//	@description	Issues short aliases for URLs and redirects them back, with a TTL cache in front of the durable store.
//	@host			localhost:8080
//	@BasePath		/
//	@schemes		http https
package main

import (
	"go.uber.org/fx"

	_ "github.com/sp3dr4/relink/docs"
	appfx "github.com/sp3dr4/relink/internal/fx"
)

func main() {
	fx.New(appfx.HTTPServerModules).Run()
}
