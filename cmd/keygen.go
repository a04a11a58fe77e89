package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/ferama/ptyctl/pkg/utils"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().BoolP("store", "s", false, "optional store the keys to files")
	keygenCmd.Flags().StringP("path", "p", ".", "key pair destination path")
	keygenCmd.Flags().StringP("name", "n", "server_key", "output file name")
	keygenCmd.Flags().IntP("bits", "b", utils.DefaultKeyBits, "rsa key size")
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generates private/public key pairs",
	Long:  `Generates private/public key pairs usable as sshd server identity`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		name, _ := cmd.Flags().GetString("name")
		storeKeys, _ := cmd.Flags().GetBool("store")
		bits, _ := cmd.Flags().GetInt("bits")

		key, err := utils.GeneratePrivateKey(bits)
		if err != nil {
			return err
		}
		publicKey, err := utils.GeneratePublicKey(&key.PublicKey)
		if err != nil {
			return err
		}
		encodedKey := utils.EncodePrivateKeyToPEM(key)
		if !storeKeys {
			fmt.Printf("%s", encodedKey)
			fmt.Printf("%s", publicKey)
			return nil
		}
		if err := utils.WriteKeyToFile(encodedKey, filepath.Join(path, name)); err != nil {
			return err
		}
		return utils.WriteKeyToFile(publicKey, filepath.Join(path, name+".pub"))
	},
}
