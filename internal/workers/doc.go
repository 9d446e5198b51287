/*
Package workers sizes worker pools for containerized environments.

In a container with a CPU limit, runtime.NumCPU() still reports the host
machine's core count. Go 1.19+ sets GOMAXPROCS from the cgroup limit, so
this package derives pool sizes from GOMAXPROCS instead and a pool never
outgrows the CPUs it was actually given.

Pregeneration encodes one image per worker and is purely CPU-bound, so it
gets one worker per CPU:

	n := workers.ForEncode(8) // max 8 workers

Descriptor scans and derivative sweeps spend their time in the filesystem
and tolerate more in-flight work:

	n := workers.ForScan(16)

For other ratios use Count directly; the multiplier is workers per CPU and
the limit caps the result:

	n := workers.Count(1.5, 12)

All functions respect the VARIANT_WORKERS environment variable as a manual
override, still capped by the limit argument:

	env:
	- name: VARIANT_WORKERS
	  value: "4"
*/
package workers
