package main

import (
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/cli"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cli.Execute()
}
