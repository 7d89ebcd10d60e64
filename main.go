package main

import "github.com/KunalGupta25/EduConnect/cmd"

func main() {
	cmd.Execute()
}
