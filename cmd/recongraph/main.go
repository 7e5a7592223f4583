// Command recongraph is a reconnaissance tool for IP addresses, domains
// and personal identities.
package main

func main() {
	Execute()
}
