//go:build (aix || netbsd || openbsd || solaris) && !baremetal

package poller

// tryEventfd reports that no counting-descriptor facility exists here.
func tryEventfd() int { return -1 }
