// Command arenactl boots a hosted kernel object arena and inspects it.
package main

func main() {
	execute()
}
