// Command flames renders fractal flames.
//
//	flames render -o flame.png --frames 200
//	flames render --scene scene.json --backend gpu
//	flames kernel --random 4
//	flames view
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
