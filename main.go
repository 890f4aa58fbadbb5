/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/printables-app/server/cmd"

func main() {
	cmd.Execute()
}
