package application

import "time"

// timeNow is indirected so tests can pin the clock.
var timeNow = time.Now
