package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"salonvox/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: salonvox-ctl [-s socket] status|ack|list [today]|cancel <id>|done <id>|say <text>\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rep, err := ipc.Send(ctx, *socket, ipc.Request{Cmd: args[0], Args: args[1:]})
	if err != nil {
		fmt.Println("salonvox-daemon not running:", err)
		os.Exit(1)
	}

	if rep.Message != "" {
		fmt.Println(rep.Message)
	}
	for _, a := range rep.Appointments {
		fmt.Printf("#%-3d %s %-8s  %-20s %-14s %s ($%d, %d min)\n",
			a.ID, a.Date, a.Time, a.CustomerName, a.Phone, a.Service, a.Price, a.Duration)
	}

	if !rep.OK {
		os.Exit(1)
	}
}
