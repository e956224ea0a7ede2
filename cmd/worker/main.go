package main

import (
	"log"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: worker scan [configID] | serve")
	}

	switch os.Args[1] {
	case "scan":
		RunScan(os.Args[2:])
	case "serve":
		RunServe()
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
