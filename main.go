package main

import "promptmatch-backend/cmd"

func main() {
	cmd.Execute()
}
