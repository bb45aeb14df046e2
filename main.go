/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/brokenfulcrum/elixr-task-service/cmd"

func main() {
	cmd.Execute()
}
