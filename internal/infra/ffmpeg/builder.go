package ffmpeg

import "strconv"

// synthArgs builds the still-image mux: the cover loops as a video track
// for exactly the duration of the audio, which is copied untouched.
func synthArgs(cover, audio, out string, fps int) []string {
	if fps <= 0 {
		fps = 1
	}
	return []string{
		"-y", "-nostdin", "-hide_banner", "-loglevel", "error",
		"-progress", "pipe:1", "-nostats",
		"-loop", "1", "-framerate", strconv.Itoa(fps), "-i", cover,
		"-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "libx264", "-tune", "stillimage", "-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		// libx264 rejects odd dimensions
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:a", "copy",
		"-shortest",
		"-f", "matroska",
		out,
	}
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}
