package main

import (
	"github.com/corray333/ordertrack/internal/app"
	"github.com/corray333/ordertrack/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
