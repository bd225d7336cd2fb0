package camera

import "github.com/pilebones/go-udev/netlink"

func HandleEventForTest(m *Monitor, event netlink.UEvent) { m.handle(event) }

func MatcherForTest(m *Monitor) netlink.Matcher { return m.matcher() }
