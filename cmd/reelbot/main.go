package main

import "github.com/aaravmody/insta-cricket-bot/internal/cli"

func main() {
	cli.Execute()
}
