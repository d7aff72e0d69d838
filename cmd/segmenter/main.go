// Command segmenter classifies audio into a timestamped decision curve.
package main

func main() {
	Execute()
}
