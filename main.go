/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "assistbot/cmd"

func main() {
	cmd.Execute()
}
