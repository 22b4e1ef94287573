package main

import (
	"stock-watch/src/grpc_control"
	"stock-watch/src/interfaces"
	"stock-watch/src/logger"
	"stock-watch/src/models"
)

// startServers runs the HTTP dashboard and, when grpc_port is set, the gRPC
// health service. The first serve error is reported on the returned channel.
func startServers(cfg *models.MConfig, srv interfaces.IDataExchanger, control *grpc_control.ControlService, log *logger.Logger) <-chan error {
	errs := make(chan error, 2)

	if cfg.GrpcPort > 0 {
		if _, err := control.Listen(); err != nil {
			log.Error("gRPC health service disabled: %v", err)
		} else {
			go func() {
				if err := control.Serve(); err != nil {
					errs <- err
				}
			}()
		}
	}

	go func() {
		if err := srv.Start(); err != nil {
			errs <- err
		}
	}()

	return errs
}
