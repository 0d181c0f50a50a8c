//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package stream

import "time"

func timeFromUnix(n int64) time.Time {
	return time.Unix(n, 0).UTC()
}
