// Command ws63flash flashes a .fwpkg firmware package onto a
// WS63-class microcontroller over a serial link.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ws63dev/ws63flash/flasher"
	"github.com/ws63dev/ws63flash/fwpkg"
)

// stdLogger adapts the standard log package to flasher.Logger.
type stdLogger struct {
	verbose bool
}

func (l *stdLogger) Debug(msg string, kv ...interface{}) {
	if l.verbose {
		log.Println(append([]interface{}{"DEBUG", msg}, kv...)...)
	}
}

func (l *stdLogger) Info(msg string, kv ...interface{}) {
	log.Println(append([]interface{}{"INFO", msg}, kv...)...)
}

func (l *stdLogger) Error(msg string, kv ...interface{}) {
	log.Println(append([]interface{}{"ERROR", msg}, kv...)...)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ws63flash", flag.ContinueOnError)
	port := fs.String("port", "", "serial port (e.g. /dev/ttyUSB0)")
	fs.StringVar(port, "p", "", "serial port (shorthand)")
	baud := fs.Int("baudrate", 921600, "target baud rate")
	fs.IntVar(baud, "b", 921600, "target baud rate (shorthand)")
	show := fs.Bool("show", false, "print package contents and exit without flashing")
	fs.BoolVar(show, "s", false, "print package contents and exit (shorthand)")
	verbose := fs.Bool("verbose", false, "enable verbose trace output")
	fs.BoolVar(verbose, "v", false, "enable verbose trace output (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ws63flash [options] firmware-file")
		fs.PrintDefaults()
		return 1
	}
	path := fs.Arg(0)

	if *show {
		pkg, file, err := fwpkg.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ws63flash: %v\n", err)
			return 1
		}
		defer file.Close()
		fmt.Print(pkg.String())
		return 0
	}

	if *port == "" {
		fmt.Fprintln(os.Stderr, "ws63flash: --port is required")
		return 1
	}

	f := flasher.New(
		flasher.WithLogger(&stdLogger{verbose: *verbose}),
		flasher.WithProgressCallback(func(p flasher.Progress) {
			if p.Phase == "app" {
				fmt.Printf("[%s] image %d/%d\n", p.Phase, p.AppIndex+1, p.AppCount)
			} else {
				fmt.Printf("[%s]\n", p.Phase)
			}
		}),
	)

	if err := f.Flash(context.Background(), path, *port, *baud); err != nil {
		fmt.Fprintf(os.Stderr, "ws63flash: %v\n", err)
		return 1
	}

	fmt.Println("flash complete")
	return 0
}
