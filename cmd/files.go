package cmd

import (
	"os"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wanderstay/wander/pkg/hasher"
	"github.com/wanderstay/wander/pkg/operations"
)

// filesCmd represents the files command
// It returns a cobra.Command that performs various operations on downloaded media files.
func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Perform various operations on downloaded media files",
	}

	// Add subcommands to the files command
	cmd.AddCommand(hashCmd())

	return cmd
}

// hashCmd represents the hash command
// It returns a cobra.Command that generates hash values for files in a directory.
func hashCmd() *cobra.Command {
	var saveToFileFlag bool
	var cleanFlag bool
	var algo string
	var recursiveFlag bool

	cmd := &cobra.Command{
		Use:   "hash [fileDir]",
		Short: "Generate hash values for media files in a directory",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := args[0]
			// Validate the hash algorithm
			if !hasher.IsValidHashAlgo(algo) {
				log.Error().Msgf("Unsupported hash algorithm: %s", algo)
				cmd.PrintErrf("Error: Unsupported hash algorithm: %s\n", algo)
				return
			}

			generateHashFiles(cmd, dir, algo, recursiveFlag, saveToFileFlag, cleanFlag)
		},
	}

	// Add flags for hash options
	cmd.Flags().StringVarP(&algo, "algo", "a", "sha256", "Hash algorithm to use [md5, sha1, sha256, sha512]")
	cmd.Flags().BoolVarP(&recursiveFlag, "recursive", "r", true, "Process files in subdirectories? [true, false]")
	cmd.Flags().BoolVarP(&saveToFileFlag, "save", "s", false, "Save hash to files? [true, false]")
	cmd.Flags().BoolVarP(&cleanFlag, "clean", "c", false, "Remove old hash files before generating new ones? [true, false]")

	return cmd
}

// generateHashFiles hashes every media file under dir and either prints the
// values or writes them next to the files with a .algo extension.
func generateHashFiles(cmd *cobra.Command, dir, algo string, recursive, saveToFile, clean bool) {
	// Determine the number of workers
	numWorkers := runtime.NumCPU() - 2
	if numWorkers < 2 {
		numWorkers = 2
	}

	// Remove old hash files if clean flag is set
	if clean {
		log.Info().Msgf("Cleaning old hash files from %s and its subdirectories", dir)
		if err := operations.CleanHashes(dir, true); err != nil {
			log.Error().Err(err).Msg("Failed to remove old hash files")
		}
	}

	files, err := operations.FindFilesToHash(dir, recursive, operations.DefaultHashExclusions)
	if err != nil {
		log.Error().Err(err).Msgf("Error walking directory %s", dir)
		cmd.PrintErrln("Error: Failed to list the files to hash.")
		return
	}
	if len(files) == 0 {
		cmd.Println("No files found to hash.")
		return
	}

	var hashFiles []string
	for result := range operations.GenerateHashes(cmd.Context(), files, algo, numWorkers) {
		if result.Err != nil {
			log.Error().Err(result.Err).Msgf("Error generating hash for file %s", result.File)
			continue
		}

		if saveToFile {
			// Write the hash to a file with .algo-name extension
			hashFilePath := result.File + "." + algo
			if err := writeHashFile(hashFilePath, result.Hash); err != nil {
				log.Error().Err(err).Msgf("Error writing hash to file %s", hashFilePath)
				continue
			}
			hashFiles = append(hashFiles, hashFilePath)
		} else {
			cmd.Printf("%s hash for \"%s\": %s\n", algo, result.File, result.Hash)
		}
	}

	if saveToFile {
		cmd.Println("Generated hash files:")
		for _, file := range hashFiles {
			cmd.Println(file)
		}
	}
}

func writeHashFile(path, hash string) error {
	return os.WriteFile(path, []byte(hash), 0o644)
}
