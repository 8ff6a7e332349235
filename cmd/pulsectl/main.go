// Command pulsectl administers a paypulse deployment.
package main

func main() {
	Execute()
}
