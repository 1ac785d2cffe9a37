package journal

// getFreeSpace and getTotalSpace are implemented per-platform in
// diskspace_unix.go / diskspace_windows.go, backing Store.GetFreeSpace /
// Store.GetTotalSpace and the DiskFull pre-check in rotateLocked.
