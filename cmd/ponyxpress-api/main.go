package main

import (
	"context"
	"errors"
	_ "time/tzdata"
)

func main() {
	app := mustBootstrapAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
