package main

import "github.com/kozaktomas/staff-attendance/cmd"

func main() {
	cmd.Execute()
}
