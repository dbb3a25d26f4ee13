// Package main is the entry point for fedshell.
package main

func main() {
	Execute()
}
