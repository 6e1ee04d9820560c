package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gpm-project/gpm"
)

// This example supervises a couple of commands in-process using the public
// gpm facade, then prints their status.
func main() {
	mgr := gpm.New()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mgr.Shutdown(ctx)
	}()

	specs := []gpm.Spec{
		{Name: "ticker", Command: "while true; do echo tick; sleep 1; done", AutoRestart: true},
		{Name: "sleeper", Command: "sleep 300", Instances: 2},
	}
	for _, sp := range specs {
		if err := mgr.Start(sp); err != nil {
			panic(err)
		}
	}

	time.Sleep(2 * time.Second)

	b, _ := json.MarshalIndent(mgr.List(), "", "  ")
	fmt.Println(string(b))

	lines, _ := mgr.Logs("ticker", 5)
	for _, line := range lines {
		fmt.Println("ticker:", line)
	}
}
