// Command enroll runs the face enrollment daemon and talks to it over the
// local control API.
//
// "enroll run" starts the daemon in the foreground. The remaining commands
// are clients: they open and close the enrollment gate, start and stop the
// camera preview, and render status, history, and logs.
package main
