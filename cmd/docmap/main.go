// Command docmap inspects how typed object graphs are stored as documents.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
