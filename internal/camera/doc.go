// Package camera provides frame sources for the capture stage.
//
// Two sources exist. The device source runs ffmpeg against a V4L2 camera and
// splits its MJPEG output into frames. The directory source replays still
// images from disk in name order, looping at the end, and is meant for
// development and demos without hardware. A Monitor can watch udev for the
// camera being unplugged and close the active source so capture stops cleanly.
package camera
