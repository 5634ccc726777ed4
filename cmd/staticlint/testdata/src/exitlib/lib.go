package exitlib

import "os"

func main() {
	os.Exit(3)
}

func Stop() {
	os.Exit(0)
}
