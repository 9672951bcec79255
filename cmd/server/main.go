package main

import (
	"log"

	"tms/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatal(err)
	}
}
