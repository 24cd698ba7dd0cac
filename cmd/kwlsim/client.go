package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/berfenger/kwlsim/internal/config"
	"github.com/berfenger/kwlsim/internal/core/catalog"
	"github.com/berfenger/kwlsim/internal/core/codec"
	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/pkg/easycontrols"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const DEFAULT_CLIENT_TIMEOUT = 2 * time.Second

var clientFlagKeys = map[string]string{
	"host": "modbus.host",
	"port": "modbus.port",
	"unit": "modbus.unit_id",
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "127.0.0.1", "simulator or device host")
	cmd.Flags().Uint("port", 502, "Modbus/TCP port")
	cmd.Flags().Uint("unit", 180, "Modbus unit id")
	cmd.Flags().Duration("timeout", DEFAULT_CLIENT_TIMEOUT, "request timeout")
}

// flags are bound when the command runs, read and write share the viper keys
func bindClientFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range clientFlagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func variableClientConfig(cfg *config.Config, timeout time.Duration) easycontrols.VariableClientConfig {
	host := cfg.Modbus.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return easycontrols.VariableClientConfig{
		Host:            host,
		Port:            cfg.Modbus.Port,
		UnitId:          uint8(cfg.Modbus.UnitId),
		Timeout:         timeout,
		CommandOffset:   cfg.Bridge.CommandOffset,
		ResponseOffset:  cfg.Bridge.ResponseOffset,
		WindowRegisters: cfg.Bridge.WindowRegisters,
	}
}

func cliLogger(cfg *config.Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zap.Must(zapCfg.Build())
}

// lookupVariable resolves a property name or variable id to a descriptor that
// can be addressed over the variable protocol.
func lookupVariable(cat *catalog.Catalog, nameOrID string) (domain.PropertyDescriptor, error) {
	d, ok := cat.Lookup(nameOrID)
	if !ok || !cat.IsProperty(d.Name) {
		return d, fmt.Errorf("%w: %s", domain.ErrUnknownProperty, nameOrID)
	}
	if d.VariableID == "" {
		return d, fmt.Errorf("%s is a list property without variable id", d.Name)
	}
	return d, nil
}

func withClient(v *viper.Viper, cmd *cobra.Command, fn func(client easycontrols.VariableClient) error) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)
	defer logger.Sync()

	client, err := easycontrols.CreateModbusVariableClient(variableClientConfig(cfg, timeout), logger, nil)
	if err != nil {
		return err
	}
	if err := client.Open(); err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func newReadCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <property>",
		Short: "Read a property by name or variable id",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindClientFlags(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			d, err := lookupVariable(cat, args[0])
			if err != nil {
				return err
			}
			if !cat.IsReadable(d.Name) {
				return fmt.Errorf("%w: %s", domain.ErrNotReadable, d.Name)
			}
			return withClient(v, cmd, func(client easycontrols.VariableClient) error {
				value, err := client.ReadVariable(d.VariableID)
				if err != nil {
					return err
				}
				if _, err := (codec.Codec{}).Decode(d, value); err != nil {
					return fmt.Errorf("unexpected value for %s: %w", d.Name, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newWriteCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <property> <value>",
		Short: "Write a property by name or variable id",
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindClientFlags(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			d, err := lookupVariable(cat, args[0])
			if err != nil {
				return err
			}
			if !cat.IsWritable(d.Name) {
				return fmt.Errorf("%w: %s", domain.ErrNotWritable, d.Name)
			}
			if _, err := (codec.Codec{}).Decode(d, args[1]); err != nil {
				return err
			}
			return withClient(v, cmd, func(client easycontrols.VariableClient) error {
				return client.WriteVariable(d.VariableID, args[1])
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the emulated properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tACCESS\tUNIT")
			for _, d := range append(cat.Descriptors(), cat.Lists()...) {
				id := d.VariableID
				if id == "" {
					id = "-"
				} else {
					id = "v" + id
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, d.Name, d.Type, d.Access, d.Unit)
			}
			return w.Flush()
		},
	}
}
